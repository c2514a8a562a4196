package layout

import "errors"

// DocumentName keys the single stored layout.
const DocumentName = "reportLayoutV1"

var ErrNotFound = errors.New("layout not found")

// Config is the free-form report layout: element offsets, sizes, font
// sizes and medication column ratios, as sent by the layout editor.
type Config map[string]interface{}
