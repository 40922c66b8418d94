// Package resolver provides the assistant's offline answers.
//
// When the chat endpoint is not deployed the client still answers, using a
// small corpus of pre-authored replies to the console's quick questions.
// Matching is plain substring containment in both directions, checked in
// corpus order:
//
//	r := resolver.New()
//	r.Resolve("如何接入邮箱账号？") // answer for "如何接入邮箱账号"
//	r.Resolve("邮箱")              // also that answer: the key contains the text
//
// Unmatched text gets a generic reply that quotes it back.
package resolver
