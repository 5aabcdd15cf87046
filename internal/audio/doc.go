// Package audio plays a sound when a toast is shown. Sounds are chosen per toast
// class and decoded with beep (WAV, OGG and MP3).
package audio
