// The main package for the feedxml-mx executable.
package main

import "github.com/feedsmith/feedxml-mx/cmd"

func main() {
	cmd.Execute()
}
