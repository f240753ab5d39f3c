// Command rpccall sends JSON-RPC 2.0 calls over HTTP.
//
//	rpccall call subtract 42 23
//	rpccall call subtract -p minuend=42 -p subtrahend=23
//	rpccall notify set x 2.5
//
// Arguments are parsed as JSON and sent as strings when they are not valid
// JSON. The endpoint and credentials come from flags, a .env file or the
// JSONRPC_CLIENT_* variables.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
