// Package forms interprets HAL-FORMS templates as editable forms.
//
// A [Form] binds each template property to a [Field] with a widget, a prefilled
// value and change handlers. A [Submitter] sends the form to its target and
// reports the outcome as a [Result]:
//
//	Idle -> Submitting -> Success | ValidationError | GenericError
//
// Required fields are checked locally first; an empty required field never
// reaches the network. A 400 application/problem+json answer is mapped onto the
// fields it names.
package forms
