// Package transform applies geometric edits to decoded images and saves the
// result beside the source without ever writing the source.
//
// Operations run in order:
//
//	out, err := transform.Apply(img, []transform.Operation{
//	    transform.Rotate(90),
//	    transform.Crop(0, 0, 400, 300),
//	})
//	rel, err := transform.Save(out, base, "beach/a.jpg", transform.NamingPolicy{Suffix: "_edited"})
//
// Save writes through filesystem.WriteUnique, so two concurrent saves of the
// same source always get distinct names.
package transform
