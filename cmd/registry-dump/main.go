package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/chainrepute/reputation-registry/rpc/registry"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// number of owners requested from the iterator at once.
const traverseBatch = 100

type credential struct {
	Owner             string `json:"owner"`
	TokenID           string `json:"tokenID"`
	Score             string `json:"score"`
	Profile           string `json:"profile"`
	ExternalReference string `json:"externalReference"`
	CreatedAt         string `json:"createdAt"`
}

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	contract := flag.String("contract", "", "Registry contract address")
	out := flag.String("out", "", "Output file (stdout if omitted)")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *contract == "":
		log.Fatal("missing registry contract")
	}

	contractHash, err := address.StringToUint160(*contract)
	if err != nil {
		log.Fatal(fmt.Errorf("decode contract address: %w", err))
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(fmt.Errorf("create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	n, err := dump(*neoRPCEndpoint, contractHash, w)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("%d registry credentials are successfully dumped\n", n)
}

func dump(endpoint string, contract util.Uint160, w io.Writer) (int, error) {
	c, err := rpcclient.New(context.Background(), endpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return 0, fmt.Errorf("RPC client dial: %w", err)
	}
	defer c.Close()

	inv := invoker.New(c, nil)
	reader := registry.NewReader(inv, contract)

	owners, err := listOwners(inv, reader)
	if err != nil {
		return 0, err
	}

	res := make([]credential, 0, len(owners))
	for i := range owners {
		rep, err := reader.GetReputation(owners[i])
		if err != nil {
			return 0, fmt.Errorf("get reputation of %s: %w", address.Uint160ToString(owners[i]), err)
		}
		if rep == nil {
			// revoked after listing
			continue
		}
		res = append(res, credential{
			Owner:             address.Uint160ToString(owners[i]),
			TokenID:           rep.TokenID.String(),
			Score:             rep.Score.String(),
			Profile:           rep.Profile,
			ExternalReference: rep.ExternalReference,
			CreatedAt:         rep.CreatedAt.String(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err = enc.Encode(res)
	if err != nil {
		return 0, fmt.Errorf("encode credentials: %w", err)
	}

	return len(res), nil
}

// listOwners reads all registry owners through the iterator session. If the
// server does not support sessions, the iterator comes already expanded.
func listOwners(inv *invoker.Invoker, reader *registry.ContractReader) ([]util.Uint160, error) {
	sessionID, iter, err := reader.ListOwners()
	if err != nil {
		return nil, fmt.Errorf("open owners iterator: %w", err)
	}

	if iter.ID == nil {
		return registry.ItemsToOwners(iter.Values)
	}

	defer func() { _ = inv.TerminateSession(sessionID) }()

	var items []stackitem.Item
	for {
		batch, err := inv.TraverseIterator(sessionID, &iter, traverseBatch)
		if err != nil {
			return nil, fmt.Errorf("traverse owners iterator: %w", err)
		}
		items = append(items, batch...)
		if len(batch) < traverseBatch {
			break
		}
	}

	return registry.ItemsToOwners(items)
}
