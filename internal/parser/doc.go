// Package parser turns free-form Spanish utterances (typed chat or voice
// transcripts) into either a transaction draft or a fixed-expense payment
// command.
//
// The rules are deliberately fuzzy: the largest number mentioned is taken as
// the amount unless a "mil" or "luca" idiom says otherwise, and keyword tables
// are evaluated in declaration order with the first match winning.
package parser
