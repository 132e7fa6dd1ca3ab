//go:build !linux

package main

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
)

func openIoctl(path string, opsPerSec int) (i2c.BusCloser, error) {
	return nil, errors.New("the ioctl bus driver needs Linux; use periph or buspirate")
}
