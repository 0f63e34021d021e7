// Package ocr recognizes the text on a binarized page.
//
// The package separates the engine from the policy around it. An Engine
// turns an image into text and may fail, hang or panic. The Extractor wraps
// an engine with a timeout, panic recovery and text cleanup, and reports
// the outcome as a Result whose Status tells "no text on the page" apart
// from "the engine failed".
//
// # Tesseract
//
// The Tesseract engine uses gosseract and needs the Tesseract C library at
// build time, so it is only compiled with the tesseract build tag:
//
//	go build -tags tesseract ./...
//
// Without the tag, NewTesseract returns an engine whose every call fails
// with ErrUnavailable. The rest of the program keeps working and OCR
// results come back with StatusFailed.
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data is looked up in the tessdata directory passed to
// NewTesseract, or in Tesseract's compiled-in default when it is empty.
//
// # Page Layout
//
// Pages are recognized as a single uniform block of text (page segmentation
// mode 6) with inter-word spacing preserved, which suits a rectified,
// cropped sheet better than automatic layout analysis.
package ocr
