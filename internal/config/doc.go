// Package config defines the format-agnostic pipeline configuration model and
// the Loader interface that fills it. The HCL implementation lives in
// hcl_adapter.
package config
