// Package lorelord runs the Lore Lord storytelling game.
//
// How to play
//   - One player is the lore lord. Everyone else is a storyteller for the round.
//   - Each round draws a prompt and deals every storyteller three prop cards.
//   - Storytellers take turns in join order. While telling, a storyteller may
//     turn over any of their own props to show they worked it in.
//   - At the end of a turn the storyteller declares whether the story was true.
//   - Once everyone has told a story, the lore lord picks the best one. It
//     scores 2 if true or 1 if invented, plus 1 per revealed prop.
//   - The lore lord role then passes to the next player in join order.
//
// Replication
//   - Exactly one Authority holds the canonical State. Every other participant
//     holds a Replica that is overwritten by each snapshot.
//   - Actions from any participant, the host's own included, are funneled to
//     the Authority's single goroutine, validated by the Machine, and followed
//     by a full-state broadcast to every registered Channel.
//   - Invalid, early or duplicate actions are logged and dropped. Nothing is
//     reported back to the sender; it will see the next snapshot.
//   - If the authority goes away the game is over. There is no election.
package lorelord
