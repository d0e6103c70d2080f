// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"resenje.org/web"

	"github.com/citelock/citelock/pkg/jsonhttp"
	"github.com/citelock/citelock/pkg/logging/httpaccess"
)

// maxRequestBodySize bounds every request body. The dominant payload is
// the full text, capped separately by the commitment builder; this is a
// transport-level backstop.
const maxRequestBodySize = 96 * 1024 * 1024

func (s *server) setupRouting() {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.HandleFunc("/", s.statusHandler).Methods(http.MethodGet)

	router.Handle("/health", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(s.statusHandler),
	))
	router.Handle("/readiness", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(s.statusHandler),
	))

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(s.Metrics()...)
	router.Path("/metrics").Handler(web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandler(promhttp.InstrumentMetricHandler(
			metricsRegistry,
			promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
		)),
	))

	router.Handle("/papers", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.paperResolveHandler),
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.paperRegisterHandler),
		),
	})

	// registered before the doc_id route so the literal path wins
	router.Handle("/papers/verify", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.paperVerifyHandler),
		),
	})

	router.Handle("/papers/{doc_id}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.paperGetHandler),
		"PUT": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.paperEditHandler),
		),
	})

	router.Handle("/papers/{doc_id}/retraction", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.paperRetractionHandler),
		),
	})

	router.Handle("/commitments", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.commitmentsHandler),
		),
	})

	s.Handler = web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.Logger, logrus.InfoLevel, s.Tracer, "api access"),
		handlers.CompressHandler,
		s.corsHandler,
		s.responseCodeMetricsHandler,
		web.NoCacheHeadersHandler,
		web.FinalHandler(router),
	)
}

func (s *server) corsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o := r.Header.Get("Origin"); o != "" && (len(s.CORSAllowedOrigins) == 0 || s.checkOrigin(r)) {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Origin", o)
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Authorization, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST, PUT, DELETE")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		h.ServeHTTP(w, r)
	})
}

func (s *server) responseCodeMetricsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.metrics.ResponseCodeCounts.WithLabelValues(fmt.Sprintf("%d", rec.status), r.Method).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}
