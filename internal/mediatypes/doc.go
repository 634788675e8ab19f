// Package mediatypes classifies gallery files by extension.
//
// This package is a dependency-free foundation imported by the indexer, the
// codec registry and the transform engine. Classification is by extension
// only and is case-insensitive:
//
//	switch mediatypes.KindOf("IMG_0001.CR2") {
//	case mediatypes.KindRaw:
//	    // demosaic or use embedded preview
//	case mediatypes.KindRaster, mediatypes.KindAnimated:
//	    // decode in-process
//	case mediatypes.KindVector:
//	    // rasterize via libvips
//	}
//
// Use GetMimeType to get the MIME type for HTTP responses.
package mediatypes
