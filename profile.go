/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

var profileFuncs = map[string]http.HandlerFunc{
	"cmdline": pprof.Cmdline,
	"profile": pprof.Profile,
	"symbol":  pprof.Symbol,
	"trace":   pprof.Trace,
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range profiles {
		mux.Handler(http.MethodGet, cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	for name, fn := range profileFuncs {
		mux.HandlerFunc(http.MethodGet, cfg.prefix+"/pprof/"+name, fn)
	}

	logf(cfg, "SERVE: Registered %d pprof handlers under %s/pprof/", len(profiles)+len(profileFuncs), cfg.prefix)
}
