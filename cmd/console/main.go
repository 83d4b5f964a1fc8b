package main

import (
	"github.com/clubops/admingate/app"
)

func main() {
	app.New(nil).Run()
}
