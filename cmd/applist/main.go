// Package main provides the CLI entrypoint for applist.
package main

func main() {
	Execute()
}
