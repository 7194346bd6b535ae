// Command heapctl replays malloc-lab traces against the segregated-fit
// allocator and inspects persisted heap images.
package main

func main() {
	execute()
}
