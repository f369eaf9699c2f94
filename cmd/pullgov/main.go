// pullgov - governed configuration pulls from live PLC runtimes
package main

func main() {
	Execute()
}
