//go:build !hotkeys

package main

func runMain(fn func()) { fn() }
