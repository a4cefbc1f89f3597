package signaling

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var animals = []string{
	"otter", "panda", "koala", "fox", "hedgehog", "squirrel", "hamster", "beaver", "lynx", "badger",
	"dolphin", "whale", "narwhal", "seal", "walrus", "penguin", "puffin", "heron", "robin", "wren",
	"owl", "falcon", "sparrow", "parrot", "toucan", "gecko", "turtle", "salmon", "moose", "bison",
}

var places = []string{
	"harbor", "meadow", "canyon", "ridge", "valley", "lagoon", "glacier", "prairie", "summit", "delta",
	"island", "orchard", "forest", "marsh", "dune", "fjord", "plateau", "reef", "grove", "bay",
	"cove", "crater", "spring", "tundra", "oasis", "cliff", "mesa", "brook", "atoll", "basin",
}

var instruments = []string{
	"cello", "banjo", "flute", "oboe", "tuba", "harp", "lute", "sitar", "ukulele", "piano",
	"violin", "viola", "bongo", "drum", "cymbal", "kazoo", "bugle", "trumpet", "organ", "zither",
	"marimba", "clarinet", "fiddle", "tabla", "gong", "lyre", "horn", "bagpipe", "mandolin", "piccolo",
}

var things = []string{
	"lantern", "compass", "kettle", "pebble", "button", "rocket", "comet", "nebula", "orbit", "anchor",
	"beacon", "candle", "feather", "marble", "mitten", "puddle", "ribbon", "satchel", "thimble", "zipper",
	"echo", "pixel", "signal", "antenna", "radio", "cable", "prism", "spark", "ember", "breeze",
}

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "brave", "calm", "swift", "silent", "bouncy",
	"fuzzy", "plucky", "merry", "gentle", "bright", "quiet", "bold", "witty", "nimble", "sunny",
}

var colors = []string{
	"amber", "azure", "coral", "indigo", "ivory", "jade", "lilac", "maroon", "ochre", "olive",
	"peach", "plum", "rust", "sage", "scarlet", "teal", "umber", "violet", "cobalt", "copper",
	"mint", "navy", "pearl", "ruby", "sable", "sepia", "slate", "tan", "topaz", "wheat",
}

const roomIDWords = 4

// generateRoomID builds a memorable word-word-word-word id from four distinct
// word lists, retrying until taken reports the id as free.
func generateRoomID(taken func(string) bool) string {
	lists := [][]string{adjectives, colors, animals, places, instruments, things}

	for {
		words := make([]string, 0, roomIDWords)
		used := make(map[int]bool, roomIDWords)

		for len(words) < roomIDWords {
			i := randomIndex(len(lists))
			if used[i] {
				continue
			}
			used[i] = true
			words = append(words, lists[i][randomIndex(len(lists[i]))])
		}

		id := strings.Join(words, "-")
		if !taken(id) {
			return id
		}
	}
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to generate random index: %v", err))
	}
	return int(n.Int64())
}
