// Package app contains the core application logic: configuration, the App
// struct tying the handler modules, the HCL catalog and the search engine
// together, and the run lifecycle, decoupled from any specific entrypoint
// like a CLI.
package app
