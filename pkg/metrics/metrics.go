// Copyright 2023 The Citelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics provides a helper to collect prometheus collectors
// declared as struct fields.
package metrics

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the prometheus namespace all citelock metrics live in.
const Namespace = "citelock"

// Collector is implemented by services that expose prometheus metrics.
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields returns all fields of i that implement
// the prometheus.Collector interface. It is meant to be called with a
// metrics struct whose fields are counters, gauges and histograms.
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for n := 0; n < v.NumField(); n++ {
		f := v.Field(n)
		if !f.CanInterface() {
			continue
		}
		if u, ok := f.Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}
