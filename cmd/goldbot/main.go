package main

import (
	"log"

	"github.com/m3rciful/goldbot/core/cmd"
	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		Bootstrap: func(cfg *coreconfig.Config) (cmd.TelegramApp, error) {
			return app.New(cfg)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
