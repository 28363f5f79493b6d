package main

import (
	"github.com/denteo/labflow/internal/app"
	"github.com/denteo/labflow/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
