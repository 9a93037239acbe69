//go:build noview

package main

import "errors"

func runViewer(fc *fileConfig) error {
	return errors.New("semigrid was built with the noview tag; rebuild without it for the viewer")
}
