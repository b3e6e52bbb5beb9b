// Package commands turns a parsed command vector into reply bytes. It
// knows nothing about sockets or wire framing; it only depends on
// internal/engine for storage and internal/resp for encoding.
package commands

import (
	"strings"

	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/resp"
)

// Command is a verb plus its arguments, normalized to an uppercase verb.
type Command struct {
	Name      string
	Arguments []string
}

// Handler executes one parsed command against the engine.
type Handler interface {
	Execute(e *engine.Engine) []byte
}

// constructors maps a verb to the function that validates its arity and
// builds a Handler for it. One handler type per verb, rather than a
// single switch in Execute, keeps arity-checking next to the command it
// belongs to.
var constructors = map[string]func(args []string) (Handler, error){
	"SET":    newSetHandler,
	"GET":    newGetHandler,
	"DEL":    newDelHandler,
	"CONFIG": newConfigHandler,
}

// Dispatch builds the right Handler for verb and runs it against e,
// returning encoded reply bytes. An empty verb vector replies with an
// "Empty command" error. An unknown verb and a wrong-arity call to a
// known verb both reply "Unknown command"; those two are not
// distinguished on the wire.
func Dispatch(e *engine.Engine, args [][]byte) []byte {
	if len(args) == 0 {
		return resp.EncodeError("Empty command")
	}

	verb := strings.ToUpper(string(args[0]))
	rest := make([]string, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = string(a)
	}

	ctor, ok := constructors[verb]
	if !ok {
		return resp.EncodeError("Unknown command")
	}

	handler, err := ctor(rest)
	if err != nil {
		return resp.EncodeError("Unknown command")
	}
	return handler.Execute(e)
}
