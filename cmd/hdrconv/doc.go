// Package main hosts the hdrconv CLI entrypoint and command graph.
//
// Files passed to the root command (or `hdrconv convert`) are converted one
// after another with a live progress bar. `hdrconv serve` starts the browser
// front end, `doctor` and `verify` report tool availability and HDR tagging,
// and `config` scaffolds the TOML configuration.
//
// Keep this package lean: conversion, job tracking and HTTP handling live in
// internal packages; commands here only resolve configuration and render
// results.
package main
