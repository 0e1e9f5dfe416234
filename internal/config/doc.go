// Package config provides configuration structures and utilities for
// speccheck. It defines the main options for crawling a spec registry,
// studying the resulting corpus, and writing result files.
package config
