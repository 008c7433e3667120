// Command arctur runs the Arctur Discord bot.
package main

func main() {
	Execute()
}
