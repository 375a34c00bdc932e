package main

import (
	"fmt"

	"github.com/fireline-edge/fireline/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
