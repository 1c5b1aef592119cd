package main

import (
	"flag"
	"log"

	"warden/config"
	"warden/server"
)

func main() {
	cfgPath := flag.String("config", "", "путь к yaml-конфигу (по умолчанию ./warden.yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app := &server.App{}
	app.Initialize(cfg)
	if err := app.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
