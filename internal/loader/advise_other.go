//go:build !linux

package loader

import "os"

func advise(*os.File) {}
