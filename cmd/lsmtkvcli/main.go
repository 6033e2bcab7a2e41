package main

import (
	"fmt"
	"os"

	"github.com/elbow-jason/lsmt-elixir/codec"
	"github.com/elbow-jason/lsmt-elixir/tree"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: lsmtkvcli <dir> put <key> <value> | lsmtkvcli <dir> fetch <key>")
		os.Exit(1)
	}

	dir, cmd, key := os.Args[1], os.Args[2], os.Args[3]

	tr, err := tree.Open(dir, tree.Options{})
	if err != nil {
		panic(err)
	}
	defer tr.Close()

	switch cmd {
	case "put":
		if len(os.Args) < 5 {
			fmt.Println("usage: lsmtkvcli <dir> put <key> <value>")
			os.Exit(1)
		}
		value := os.Args[4]
		if err := tr.Put(codec.Bytes([]byte(key)), codec.Bytes([]byte(value))); err != nil {
			panic(err)
		}
		fmt.Printf("put %q = %q\n", key, value)

	case "fetch":
		v, ok, err := tr.Fetch(codec.Bytes([]byte(key)))
		if err != nil {
			panic(err)
		}
		if !ok {
			fmt.Printf("%q: not found\n", key)
			return
		}
		b, _ := v.BytesValue()
		fmt.Printf("%q = %q\n", key, b)

	default:
		fmt.Printf("unknown command %q\n", cmd)
		os.Exit(1)
	}
}
