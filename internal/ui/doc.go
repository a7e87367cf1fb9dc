// Package ui implements the interactive terminal interfaces.
//
// The bubbletea [Model] browses the API the way a member would in the web client:
//  1. [ResourceView] : links, embedded items and form templates of the current resource
//  2. [RawView] : pretty-printed body of a response that is not HAL
//  3. [FormView] : edit and submit a HAL-FORMS template with inline validation errors
//
// The model implements bubbletea/Elm's standard Init/Update/View pattern. Navigation goes
// through a [navigation.Stack]: enter follows, esc goes back, r returns to the root.
//
// [Prompter] fills a form with sequential survey prompts for `halx form submit --interactive`.
package ui
