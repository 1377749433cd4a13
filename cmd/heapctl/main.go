// Command heapctl replays allocator traces against the heap allocators,
// generates random traces, and validates heap images.
package main

func main() {
	execute()
}
