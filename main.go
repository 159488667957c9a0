package main

import "github.com/frahmantamala/taskdesk/cmd"

func main() {
	cmd.Execute()
}
