package main

import "github.com/micro-nova/ampvol-go/internal/hardware"

func openIoctl(path string, opsPerSec int) (*hardware.LinuxI2C, error) {
	return hardware.OpenLinuxI2C(path, opsPerSec)
}
