//go:build tinygo

package main

import (
	"pulsar/app"
	"pulsar/hal"
)

func main() {
	h := hal.New()
	if err := app.Run(h, app.DefaultConfig()); err != nil {
		h.Logger().WriteLineString("pulsar: " + err.Error())
	}
	select {}
}
