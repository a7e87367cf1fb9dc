// Package hal models HAL and HAL-FORMS documents.
//
// It covers four concerns that everything else in halx builds on:
//
//   - the wire model ([Link], [Links], [Resource], [Template], [Property])
//   - shape predicates over generic JSON ([IsHalResponse], [IsHalFormsTemplate],
//     [IsStrictHalFormsTemplate], [IsHalFormsResponse])
//   - tagged decoding of a response body into a [Document] whose [Kind] is one of
//     Collection, Item, FormTemplate or Unrecognized
//   - navigation targets ([URL], [Link], [TemplateTarget]) and their resolution
//     to an href via [ToHref]
//
// Dotted-path helpers ([GetNestedValue], [SetNestedValue]) read and write form
// data without mutating the caller's map.
//
// Media types:
//
//	application/hal+json             plain HAL
//	application/prs.hal-forms+json   HAL-FORMS
//	application/problem+json         RFC 7807 validation errors
package hal
