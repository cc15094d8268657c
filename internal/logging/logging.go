package logging

import (
	"log"
	"os"
)

func New() *log.Logger {
	return log.New(os.Stdout, "urconf ", log.LstdFlags|log.LUTC)
}
