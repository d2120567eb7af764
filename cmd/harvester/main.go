package main

import (
	"uzdata-harvester/cmd/harvester/commands"
	"uzdata-harvester/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
