package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnehpets/jsonrpc2/client"
	"github.com/mnehpets/jsonrpc2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type options struct {
	v          *viper.Viper
	configFile string
	named      []string
	id         string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	o := &options{v: config.New()}

	root := &cobra.Command{
		Use:          "rpccall",
		Short:        "Send JSON-RPC 2.0 calls over HTTP",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&o.configFile, "config", "c", "", "config file")
	flags.StringP("url", "u", "", "endpoint URL")
	flags.String("idgen", "", "request id generator: counter, random or uuid")
	flags.String("token", "", "bearer token")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log requests to stderr")
	for key, name := range map[string]string{"client.url": "url", "client.idgen": "idgen", "client.token": "token"} {
		if err := o.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	call := &cobra.Command{
		Use:   "call METHOD [PARAM...]",
		Short: "Call a method and print its result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  o.runCall,
	}
	call.Flags().StringArrayVarP(&o.named, "param", "p", nil, "named parameter as name=value, repeatable")
	call.Flags().StringVar(&o.id, "id", "", "request id, generated when empty")

	notify := &cobra.Command{
		Use:   "notify METHOD [PARAM...]",
		Short: "Send a notification",
		Args:  cobra.MinimumNArgs(1),
		RunE:  o.runNotify,
	}
	notify.Flags().StringArrayVarP(&o.named, "param", "p", nil, "named parameter as name=value, repeatable")

	root.AddCommand(call, notify)
	return root
}

func (o *options) client() (*client.Client, error) {
	conf, err := config.LoadWith(o.v, o.configFile)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	var httpOpts []client.HTTPOption
	httpOpts = append(httpOpts, client.WithHTTPLogger(logger))
	if conf.Client.Token != "" {
		httpOpts = append(httpOpts, client.WithBearerToken(conf.Client.Token))
	}
	return client.New(
		client.NewHTTPTransport(conf.Client.URL, httpOpts...),
		client.WithIDGenerator(client.NewIDGenerator(conf.Client.IDGen)),
		client.WithLogger(logger),
	), nil
}

func (o *options) runCall(cmd *cobra.Command, args []string) error {
	c, err := o.client()
	if err != nil {
		return err
	}
	named, positional, err := o.params(args[1:])
	if err != nil {
		return err
	}

	req := client.NewRequest[json.RawMessage](c).Method(args[0])
	if o.id != "" {
		req = req.ID(parseID(o.id))
	}
	if positional != nil {
		req = req.Params(positional...)
	}
	for name, value := range named {
		req = req.Param(name, value)
	}

	result, err := req.ExecuteNullable(cmd.Context())
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(*result))
	return nil
}

func (o *options) runNotify(cmd *cobra.Command, args []string) error {
	c, err := o.client()
	if err != nil {
		return err
	}
	named, positional, err := o.params(args[1:])
	if err != nil {
		return err
	}

	n := client.NewNotification(c).Method(args[0])
	if positional != nil {
		n = n.Params(positional...)
	}
	for name, value := range named {
		n = n.Param(name, value)
	}
	return n.Execute(cmd.Context())
}

// params splits the command line into named and positional params.
func (o *options) params(args []string) (map[string]any, []any, error) {
	if len(o.named) > 0 && len(args) > 0 {
		return nil, nil, fmt.Errorf("use either --param or positional arguments")
	}
	named := make(map[string]any, len(o.named))
	for _, kv := range o.named {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid --param %q, want name=value", kv)
		}
		named[name] = parseValue(value)
	}
	if len(args) == 0 {
		return named, nil, nil
	}
	positional := make([]any, len(args))
	for i, arg := range args {
		positional[i] = parseValue(arg)
	}
	return named, positional, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// parseID keeps numeric ids in their literal form.
func parseID(s string) any {
	if n := json.Number(s); json.Valid([]byte(s)) {
		if _, err := n.Float64(); err == nil {
			return n
		}
	}
	return s
}
