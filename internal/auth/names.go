package auth

import "math/rand"

var nameAdjectives = []string{
	"Brave", "Calm", "Clever", "Crimson", "Curious", "Daring", "Eager",
	"Fuzzy", "Gentle", "Golden", "Happy", "Jolly", "Lively", "Lucky",
	"Mellow", "Mighty", "Nimble", "Plucky", "Quick", "Quiet", "Rapid",
	"Shiny", "Silent", "Sly", "Snappy", "Sunny", "Swift", "Witty",
}

var nameAnimals = []string{
	"Badger", "Beaver", "Bison", "Falcon", "Ferret", "Fox", "Gecko",
	"Heron", "Ibis", "Jackal", "Koala", "Lemur", "Lynx", "Marmot",
	"Narwhal", "Otter", "Owl", "Panda", "Puffin", "Raven", "Seal",
	"Sparrow", "Stoat", "Tapir", "Toucan", "Walrus", "Wombat", "Yak",
}

// GenerateName returns a friendly two-word display name like "Brave Falcon".
func GenerateName() string {
	return nameAdjectives[rand.Intn(len(nameAdjectives))] + " " +
		nameAnimals[rand.Intn(len(nameAnimals))]
}
