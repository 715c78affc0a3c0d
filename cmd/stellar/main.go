// Package main is the entry point for the Stellar offline player.
package main

func main() {
	Execute()
}
