// Package convert turns decoded trace-recorder events into structured
// interchange records. It keeps the per-stream state the recorder's
// asymmetric event model requires: the stack of nested ISR entries, the
// active scheduling context, the interned string tables and the registered
// output schemas. One decoded event produces zero, one or two records,
// pushed to the sink in a fixed relative order.
package convert
