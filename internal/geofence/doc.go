// Package geofence detects boundary crossings of circular regions
// linked to habits.
//
// Membership is tracked per fence between consecutive position samples;
// a fence fires only on an actual crossing in a direction it is
// configured for. Being inside a fence is not an event.
package geofence
