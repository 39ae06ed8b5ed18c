package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/bulletinkeeper/internal/console"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg, func() ([]byte, error) {
		return console.GetPassword(os.Stderr, "Key pair passphrase")
	})

	if err == nil {
		err = app.Run(ctx)
	}

	if err != nil {
		log.Printf("%v", err)
		var ee *server.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.Code)
		}
		os.Exit(server.ExitUnexpected)
	}

}
