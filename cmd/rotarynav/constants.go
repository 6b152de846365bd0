package main

// Linux input event types and codes (from <linux/input-event-codes.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02

	// Relative axes emitted by rotary-encoder / gpio-keys style devices
	REL_X    = 0x00
	REL_DIAL = 0x07

	// Encoder push button defaults to KEY_ENTER on most device-tree overlays
	KEY_ENTER   = 28
	KEY_KPENTER = 96
	KEY_LEFT    = 105
	KEY_RIGHT   = 106
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// evIOCGRAB is _IOW('E', 0x90, int): exclusive access to an evdev device.
const evIOCGRAB = 0x40044590

// Menu timing defaults (milliseconds)
const (
	defaultDebounceMS        = 100
	defaultLongPressMS       = 500
	defaultNavAutoHideMS     = 10000
	defaultTransitionMS      = 300
	defaultMenuAutoHideMS    = 5000
	defaultInfoMS            = 1500
	defaultModuleSpeedMS     = 600
	defaultRangeResetDelayMS = 300
	defaultBusTimeoutMS      = 2000
)

// Carousel geometry: seven slots, the active action sits in the middle one.
const (
	carouselSlots    = 7
	carouselForward  = 4 // active + three after it
	carouselBackward = 3
	carouselCenter   = carouselSlots / 2

	// rotationDegree is the angular distance between two neighbouring slots.
	rotationDegree = 37.0
)

// Range gauge sweep: a half circle from -180 (min) to 0 (max).
const gaugeSweepDegrees = 180.0
