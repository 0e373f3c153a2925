// Command demo-cli walks through a full dungeon generation round in-process.
//
// Two providers contribute encrypted party attributes into a batch, the
// seed is derived homomorphically, and the oracle reveals the plaintext
// results. The revealed seed then drives the dungeon layout generator and
// the map is printed.
//
// The demo also shows the protocol's race guard: it issues a decryption
// request, lets a late contribution land before the oracle responds, and
// prints the stale-snapshot rejection followed by the successful retry.
//
// # Usage
//
//	go run ./cmd/demo-cli
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/dungeon"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	engine := fhe.NewInMemoryEngine()
	oracle, err := fhe.NewInMemoryOracle(engine)
	exitOn(err)

	owner := crypto.NewAddressFromBytes([]byte("demo-owner"))
	alice := crypto.NewAddressFromBytes([]byte("provider-alice"))
	bob := crypto.NewAddressFromBytes([]byte("provider-bob"))

	coord, err := protocol.NewCoordinator(protocol.Config{
		Owner:    owner,
		Cooldown: time.Nanosecond,
	}, engine, oracle, oracle, log)
	exitOn(err)

	exitOn(coord.AddProvider(owner, alice))
	exitOn(coord.AddProvider(owner, bob))

	batchID, err := coord.OpenBatch(owner)
	exitOn(err)
	fmt.Printf("Opened batch %d with providers alice and bob\n\n", batchID)

	submit(coord, engine, alice, batchID, 5, 3, 4)
	fmt.Println("alice contributed encrypted attributes (5, 3, 4)")
	submit(coord, engine, bob, batchID, 4, 5, 2)
	fmt.Println("bob contributed encrypted attributes (4, 5, 2)")

	// First round: request, fulfill, reveal.
	requestID, err := coord.GenerateSeed(owner, batchID)
	exitOn(err)
	fmt.Printf("\nSeed derived homomorphically, decryption requested (%s)\n", requestID)

	values, proof, err := oracle.Fulfill(requestID)
	exitOn(err)
	revealed, err := coord.OnDecryptionResult(requestID, values, proof)
	exitOn(err)
	fmt.Printf("Oracle revealed: strength=%d agility=%d intellect=%d seed=%d\n",
		revealed.Strength, revealed.Agility, revealed.Intellect, revealed.Seed)

	fmt.Println("\nGenerated dungeon:")
	layout := dungeon.Generate(revealed.Seed, dungeon.Params{
		Strength:  revealed.Strength,
		Agility:   revealed.Agility,
		Intellect: revealed.Intellect,
	})
	fmt.Println(layout.Render())

	// Second round: a contribution lands between the decryption request and
	// the oracle response, so the first delivery is rejected as stale.
	fmt.Println("Race guard demonstration:")
	staleID, err := coord.GenerateSeed(owner, batchID)
	exitOn(err)
	staleValues, staleProof, err := oracle.Fulfill(staleID)
	exitOn(err)

	submit(coord, engine, alice, batchID, 1, 1, 1)
	fmt.Println("  alice contributed (1, 1, 1) while the oracle was working")

	if _, err := coord.OnDecryptionResult(staleID, staleValues, staleProof); err != nil {
		fmt.Printf("  stale delivery rejected: %v\n", err)
	}

	retryID, err := coord.GenerateSeed(owner, batchID)
	exitOn(err)
	values, proof, err = oracle.Fulfill(retryID)
	exitOn(err)
	revealed, err = coord.OnDecryptionResult(retryID, values, proof)
	exitOn(err)
	fmt.Printf("  fresh request succeeded: strength=%d agility=%d intellect=%d seed=%d\n",
		revealed.Strength, revealed.Agility, revealed.Intellect, revealed.Seed)
}

func submit(coord *protocol.Coordinator, engine *fhe.InMemoryEngine, provider crypto.Address, batchID, s, a, i uint64) {
	hs, err := engine.Encrypt(s)
	exitOn(err)
	ha, err := engine.Encrypt(a)
	exitOn(err)
	hi, err := engine.Encrypt(i)
	exitOn(err)
	exitOn(coord.SubmitContribution(provider, batchID, hs, ha, hi))
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
