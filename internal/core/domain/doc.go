// Package domain holds the core entities of the document Q&A pipeline:
// credentials and their health state, documents and chunks, and the
// router's strategy decision. Types here have no infrastructure dependencies.
package domain
