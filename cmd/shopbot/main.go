package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/m3rciful/shopbot/core/buildinfo"
	"github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
	log.Printf("shopbot %s", buildinfo.String())

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err == nil {
		return
	}

	var fatal *coreconfig.FatalConfigError
	if errors.As(err, &fatal) {
		fmt.Fprintf(os.Stderr, "configuration error: %s\n", fatal.Error())
	} else {
		fmt.Fprintf(os.Stderr, "shopbot: %v\n", err)
	}
	os.Exit(1)
}
