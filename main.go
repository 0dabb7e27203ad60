package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
	a := app.New()
	<-a.Start()

	// the registry flush and the publisher close run inside Stop
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Stop(ctx)
}
