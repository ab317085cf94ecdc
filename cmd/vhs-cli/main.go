package main

import (
	"github.com/Missing-API/vhs-vg-courses-sub000/cmd/vhs-cli/commands"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
