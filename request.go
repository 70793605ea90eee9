package scanout

// outFenceProp is the timing-controller property that, when armed,
// makes a successful commit produce a fence for "this transaction has
// reached the display".
const outFenceProp = "OUT_FENCE_PTR"

// PropertyValue is one property write within an atomic transaction.
type PropertyValue struct {
	// ObjectID is the display object being written.
	ObjectID uint32

	// PropID is the resolved property identifier on that object.
	PropID uint32

	// Value is the raw 64-bit property value.
	Value uint64
}

// Request accumulates property writes for one atomic transaction.
//
// Writes are ordered and applied all-or-nothing by Display.Submit. If a
// property fails to resolve, the whole request is poisoned: every later
// Set and the eventual Submit return the first error, so no partially
// accumulated transaction can reach the display.
//
// A request is built, submitted once, and discarded; it is not reused.
// Requests are not safe for concurrent use.
type Request struct {
	props []PropertyValue
	err   error

	// out-fence slot, armed by RequestOutFence
	outObj   uint32
	outProp  uint32
	outArmed bool
	outFence int
}

// NewRequest creates an empty transaction.
func NewRequest() *Request {
	return &Request{outFence: -1}
}

// Set resolves name on obj and appends the write to the transaction.
// On resolution failure the request is poisoned and the error (a
// *PropertyError) is returned from this and every later call.
func (r *Request) Set(obj *Object, name string, value uint64) error {
	if r.err != nil {
		return r.err
	}
	propID, err := obj.Prop(name)
	if err != nil {
		r.err = err
		return err
	}
	r.props = append(r.props, PropertyValue{ObjectID: obj.ID(), PropID: propID, Value: value})
	return nil
}

// Err returns the error that poisoned the request, if any. Display
// adapters check this before encoding; a poisoned request is never
// submitted.
func (r *Request) Err() error { return r.err }

// RequestOutFence arms the request's out-fence slot on the timing
// controller. A successful submit then additionally produces a brand-new
// fence handle representing the transaction's arrival at the display,
// retrievable once via TakeOutFence.
func (r *Request) RequestOutFence(crtc *Object) error {
	if r.err != nil {
		return r.err
	}
	propID, err := crtc.Prop(outFenceProp)
	if err != nil {
		r.err = err
		return err
	}
	r.outObj = crtc.ID()
	r.outProp = propID
	r.outArmed = true
	return nil
}

// OutFenceArmed reports whether an out-fence was requested, and on which
// object and property the display adapter should arm it.
func (r *Request) OutFenceArmed() (objectID, propID uint32, armed bool) {
	return r.outObj, r.outProp, r.outArmed
}

// StoreOutFence records the fence handle a successful submit produced.
// Called by display adapters only; the handle's ownership passes to
// whoever calls TakeOutFence.
func (r *Request) StoreOutFence(handle int) {
	if !r.outArmed {
		return
	}
	r.outFence = handle
}

// TakeOutFence transfers ownership of the produced out-fence handle to
// the caller. The second call reports no fence.
func (r *Request) TakeOutFence() (int, bool) {
	if r.outFence < 0 {
		return -1, false
	}
	handle := r.outFence
	r.outFence = -1
	return handle, true
}

// Len returns the number of accumulated property writes.
func (r *Request) Len() int { return len(r.props) }

// Props returns a copy of the accumulated writes in submission order.
func (r *Request) Props() []PropertyValue {
	out := make([]PropertyValue, len(r.props))
	copy(out, r.props)
	return out
}
