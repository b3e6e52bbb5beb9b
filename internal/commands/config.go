package commands

import (
	"errors"

	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/resp"
)

// CONFIG ... is a no-op on this store: it exists only so that generic
// clients which probe configuration on connect (CONFIG GET save, etc.)
// succeed instead of erroring out.

type configHandler struct{}

func newConfigHandler(args []string) (Handler, error) {
	if len(args) < 1 {
		return nil, errors.New("wrong number of arguments for 'CONFIG'")
	}
	return &configHandler{}, nil
}

func (h *configHandler) Execute(e *engine.Engine) []byte {
	return resp.EncodeEmptyArray()
}
