package rpc

import (
	"context"
	"net/http"
	"sort"

	"connectrpc.com/connect"
)

// Router collects unary handlers for the service and serves them from one mux.
type Router struct {
	mux        *http.ServeMux
	opts       []connect.HandlerOption
	procedures []string
}

// NewRouter creates a router whose handlers share opts. The JSON codec is always installed.
func NewRouter(opts ...connect.HandlerOption) *Router {
	return &Router{
		mux:  http.NewServeMux(),
		opts: append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...),
	}
}

// Register adds a unary method to the router.
func Register[Req, Res any](r *Router, method string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	procedure := Procedure(method)
	r.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, r.opts...))
	r.procedures = append(r.procedures, procedure)
}

// Handler returns the path prefix to mount and the handler serving every registered procedure.
func (r *Router) Handler() (string, http.Handler) {
	return "/" + ServiceName + "/", r.mux
}

// Procedures lists registered procedure paths in sorted order.
func (r *Router) Procedures() []string {
	out := append([]string(nil), r.procedures...)
	sort.Strings(out)
	return out
}
