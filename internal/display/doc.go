// Package display renders queued toasts as GTK4 layer-shell popups.
// Every queue change triggers a render pass on the GTK main loop that creates,
// closes and restacks popup windows before acknowledging the pass to the queue.
package display
