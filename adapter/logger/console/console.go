package console

import "log"

type console struct {
}

func New() *console {
	return &console{}
}

func (c *console) Info(msg string) {
	log.Println("INFO", msg)
}

func (c *console) Warn(msg string) {
	log.Println("WARN", msg)
}

func (c *console) Error(msg string) {
	log.Println("ERROR", msg)
}
