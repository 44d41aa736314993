package binding

import (
	"context"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for marshaller events.
var (
	SignalBindingCreated    = capitan.NewSignal("oxm.binding.created", "Marshaller initialized")
	SignalMarshalStart      = capitan.NewSignal("oxm.marshal.start", "Marshal operation beginning")
	SignalMarshalComplete   = capitan.NewSignal("oxm.marshal.complete", "Marshal operation finished")
	SignalUnmarshalStart    = capitan.NewSignal("oxm.unmarshal.start", "Unmarshal operation beginning")
	SignalUnmarshalComplete = capitan.NewSignal("oxm.unmarshal.complete", "Unmarshal operation finished")
)

// Keys for typed event data.
var (
	KeyMode       = capitan.NewStringKey("mode")
	KeyEncoding   = capitan.NewStringKey("encoding")
	KeyLocations  = capitan.NewStringKey("locations")
	KeyLocationN  = capitan.NewIntKey("location_count")
	KeyTargetType = capitan.NewStringKey("target_type")
	KeyDigest     = capitan.NewStringKey("mapping_digest")
	KeyChannel    = capitan.NewStringKey("channel")
	KeyTypeName   = capitan.NewStringKey("type_name")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyError      = capitan.NewErrorKey("error")
)

// emitBindingCreated emits an event when a marshaller is initialized.
func emitBindingCreated(ctx context.Context, mode, encoding string, locations []string, target, digest string) {
	capitan.Emit(ctx, SignalBindingCreated,
		KeyMode.Field(mode),
		KeyEncoding.Field(encoding),
		KeyLocations.Field(strings.Join(locations, ",")),
		KeyLocationN.Field(len(locations)),
		KeyTargetType.Field(target),
		KeyDigest.Field(digest),
	)
}

// emitMarshalStart emits an event when marshal begins.
func emitMarshalStart(ctx context.Context, channel, typeName string) {
	capitan.Emit(ctx, SignalMarshalStart,
		KeyChannel.Field(channel),
		KeyTypeName.Field(typeName),
	)
}

// emitMarshalComplete emits an event when marshal finishes.
func emitMarshalComplete(ctx context.Context, channel, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyChannel.Field(channel),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalMarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalMarshalComplete, fields...)
	}
}

// emitUnmarshalStart emits an event when unmarshal begins.
func emitUnmarshalStart(ctx context.Context, channel, typeName string) {
	capitan.Emit(ctx, SignalUnmarshalStart,
		KeyChannel.Field(channel),
		KeyTypeName.Field(typeName),
	)
}

// emitUnmarshalComplete emits an event when unmarshal finishes.
func emitUnmarshalComplete(ctx context.Context, channel, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyChannel.Field(channel),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnmarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnmarshalComplete, fields...)
	}
}
