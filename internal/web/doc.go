// Package web serves a server-rendered HAL browser.
//
// Every page maps a browser path to an API resource: /members/5 renders /api/members/5.
//
// # Routes
//
//	GET  /<path>  → fetch /api/<path> and render links, attributes, embedded tables and forms
//	POST /<path>  → submit the template named by the _template field of the posted form
//
// A successful submit redirects back to the page (303), so the browser refetches the resource.
// A delete redirects to the parent path. Validation errors re-render the form with the posted
// values and the server's messages next to each field.
//
// # Templates
//
// Pages are pongo2 templates embedded from templates/. String attributes that carry markup
// are sanitized with bluemonday before they are rendered unescaped.
package web
