// Command courses runs the learning courses service.
package main

import "github.com/mesh-intelligence/courses/internal/cli"

func main() {
	cli.Main()
}
