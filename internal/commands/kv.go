package commands

import (
	"errors"

	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/resp"
)

// SET key value

type setHandler struct {
	key, value string
}

func newSetHandler(args []string) (Handler, error) {
	if len(args) != 2 {
		return nil, errors.New("wrong number of arguments for 'SET'")
	}
	return &setHandler{key: args[0], value: args[1]}, nil
}

func (h *setHandler) Execute(e *engine.Engine) []byte {
	e.Set(h.key, h.value)
	return resp.EncodeSimpleString("OK")
}

// GET key

type getHandler struct {
	key string
}

func newGetHandler(args []string) (Handler, error) {
	if len(args) != 1 {
		return nil, errors.New("wrong number of arguments for 'GET'")
	}
	return &getHandler{key: args[0]}, nil
}

func (h *getHandler) Execute(e *engine.Engine) []byte {
	value, found := e.Get(h.key)
	// An empty value and an absent key share the null-bulk reply; the
	// wire format has no separate "exists but empty" tag.
	if !found || value == "" {
		return resp.EncodeNullBulkString()
	}
	return resp.EncodeBulkString(value)
}

// DEL key

type delHandler struct {
	key string
}

func newDelHandler(args []string) (Handler, error) {
	if len(args) != 1 {
		return nil, errors.New("wrong number of arguments for 'DEL'")
	}
	return &delHandler{key: args[0]}, nil
}

func (h *delHandler) Execute(e *engine.Engine) []byte {
	if e.Del(h.key) {
		return resp.EncodeInteger(1)
	}
	return resp.EncodeInteger(0)
}
