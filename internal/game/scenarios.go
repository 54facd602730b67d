package game

// builtinScenarios is the stock rotation of improv prompts. Rounds walk the
// list in order, wrapping when a session is configured for more rounds than
// there are scenarios.
var builtinScenarios = []string{
	"You are a time-travelling tour guide explaining modern smartphones to someone from the 1800s.",
	"You are a restaurant waiter who must calmly tell a customer that their order has escaped the kitchen.",
	"You are a customer trying to return an obviously cursed object to a very skeptical shop owner.",
	"You are a barista who has to tell a customer that their latte is actually a portal to another dimension.",
	"You are a tech support agent helping an alien understand how to use a toaster.",
	"You are a museum guide explaining why the dinosaur exhibit is currently doing yoga.",
	"You are a pizza delivery person who accidentally delivered to the wrong century.",
	"You are a librarian explaining to a dragon why they can't check out books without a library card.",
}
