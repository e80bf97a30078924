// Command chordctl is an interactive client for probing and exercising a
// running Chord ring: put/get/delete values, look up the owner of an
// arbitrary identifier, and inspect a node's routing state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/peterh/liner"

	"chordring/internal/domain"
	"chordring/internal/ring"
	"chordring/internal/transport"
	"chordring/internal/transport/grpcnet"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of a ring node to connect through")
	bits := flag.Int("bits", 160, "ring identifier width in bits, must match the ring's dht.idBits")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	space, err := ring.NewSpace(*bits)
	if err != nil {
		log.Fatalf("invalid -bits: %v", err)
	}

	pool := grpcnet.NewPool(nil, *timeout)
	defer pool.CloseAll()
	tr := grpcnet.NewClient(pool, space)

	currentAddr := *addr
	peer := &domain.Node{ID: space.Zero(), Addr: currentAddr}

	fmt.Printf("chordring interactive client, connected to %s\n", currentAddr)
	fmt.Println("Available commands: put/get/delete/lookup/getrt/ping/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("chordctl[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {
		case "put":
			if len(args) < 3 {
				fmt.Println("usage: put <key> <value>")
				break
			}
			key, value := args[1], args[2]
			keyID := space.HashString(key)
			owner, err := tr.FindSuccessorForId(ctx, peer, keyID)
			if err != nil {
				fmt.Printf("put failed: locating owner: %v\n", err)
				break
			}
			res := domain.Resource{Key: keyID, RawKey: key, Value: []byte(value)}
			if err := tr.StoreValue(ctx, owner, res); err != nil {
				fmt.Printf("put failed: %v\n", err)
				break
			}
			fmt.Printf("put ok (key=%s owner=%s)\n", key, owner.Addr)

		case "get":
			if len(args) < 2 {
				fmt.Println("usage: get <key>")
				break
			}
			key := args[1]
			keyID := space.HashString(key)
			owner, err := tr.FindSuccessorForId(ctx, peer, keyID)
			if err != nil {
				fmt.Printf("get failed: locating owner: %v\n", err)
				break
			}
			val, err := tr.GetStorageValue(ctx, owner, keyID)
			switch {
			case err == nil:
				fmt.Printf("get ok (key=%s value=%s owner=%s)\n", key, val, owner.Addr)
			case errors.Is(err, transport.ErrNotFound):
				fmt.Printf("key not found: %s\n", key)
			default:
				fmt.Printf("get failed: %v\n", err)
			}

		case "delete":
			if len(args) < 2 {
				fmt.Println("usage: delete <key>")
				break
			}
			key := args[1]
			keyID := space.HashString(key)
			owner, err := tr.FindSuccessorForId(ctx, peer, keyID)
			if err != nil {
				fmt.Printf("delete failed: locating owner: %v\n", err)
				break
			}
			err = tr.RemoveValue(ctx, owner, keyID)
			switch {
			case err == nil:
				fmt.Printf("delete ok (key=%s owner=%s)\n", key, owner.Addr)
			case errors.Is(err, transport.ErrNotFound):
				fmt.Printf("key not found: %s\n", key)
			default:
				fmt.Printf("delete failed: %v\n", err)
			}

		case "lookup":
			if len(args) < 2 {
				fmt.Println("usage: lookup <hex-id>")
				break
			}
			id, err := space.FromHex(args[1])
			if err != nil {
				fmt.Printf("invalid id: %v\n", err)
				break
			}
			owner, err := tr.FindSuccessorForId(ctx, peer, id)
			if err != nil {
				fmt.Printf("lookup failed: %v\n", err)
				break
			}
			fmt.Printf("lookup ok: successor=%s (%s)\n", owner.ID.Hex(), owner.Addr)

		case "getrt":
			pred, err := tr.GetPredecessor(ctx, peer)
			if err != nil {
				fmt.Printf("getrt failed: %v\n", err)
				break
			}
			succs, err := tr.GetSuccessorsList(ctx, peer)
			if err != nil {
				fmt.Printf("getrt failed: %v\n", err)
				break
			}
			fmt.Println("routing table:")
			if pred != nil {
				fmt.Printf("  predecessor: %s (%s)\n", pred.ID.Hex(), pred.Addr)
			} else {
				fmt.Println("  predecessor: none")
			}
			fmt.Println("  successors:")
			for i, s := range succs {
				fmt.Printf("    [%d] %s (%s)\n", i, s.ID.Hex(), s.Addr)
			}

		case "ping":
			if err := tr.Ping(ctx, peer); err != nil {
				fmt.Printf("ping failed: %v\n", err)
			} else {
				fmt.Println("pong")
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("usage: use <addr>")
				break
			}
			currentAddr = args[1]
			peer = &domain.Node{ID: space.Zero(), Addr: currentAddr}
			fmt.Printf("switched connection to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("bye")
			cancel()
			return

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		cancel()
	}
}
