package restir

// Channel names.
const (
	ChannelVBuffer  = "vbuffer"
	ChannelDepth    = "depth"
	ChannelNormal   = "normal"
	ChannelMotion   = "mvec"
	ChannelViewW    = "viewW"
	ChannelColor    = "color"
	ChannelDiffuse  = "diffuseRadiance"
	ChannelSpecular = "specularRadiance"
)

// ChannelDesc declares one input or output texture.
type ChannelDesc struct {
	Name     string
	Desc     string
	Optional bool
}

// Reflection lists the channels a pass consumes and produces.
type Reflection struct {
	Inputs  []ChannelDesc
	Outputs []ChannelDesc
}

var inputChannels = []ChannelDesc{
	{Name: ChannelVBuffer, Desc: "World-space position (xyz) and material id + 1 (w); w == 0 marks a miss"},
	{Name: ChannelNormal, Desc: "World-space shading normal"},
	{Name: ChannelDepth, Desc: "Linear view depth", Optional: true},
	{Name: ChannelMotion, Desc: "Pixel offset to the previous frame", Optional: true},
	{Name: ChannelViewW, Desc: "World-space view direction, required for depth of field", Optional: true},
}

var outputChannels = []ChannelDesc{
	{Name: ChannelColor, Desc: "Shaded radiance"},
	{Name: ChannelDiffuse, Desc: "Diffuse radiance"},
	{Name: ChannelSpecular, Desc: "Specular radiance"},
}

// Reflect returns the channel declarations of the reservoir pass.
func Reflect() Reflection {
	return Reflection{
		Inputs:  append([]ChannelDesc(nil), inputChannels...),
		Outputs: append([]ChannelDesc(nil), outputChannels...),
	}
}

// missingInputs returns the required inputs absent from rd, or bound with
// the wrong dimensions.
func missingInputs(rd *RenderData) []string {
	w, h := rd.DefaultDims()
	var missing []string
	for _, c := range inputChannels {
		if c.Optional {
			continue
		}
		t := rd.Texture(c.Name)
		if t == nil || t.Width != w || t.Height != h {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// channelDefines reports which optional inputs are bound, as the
// is_valid_<name> defines the kernels branch on.
func channelDefines(rd *RenderData) Defines {
	d := make(Defines)
	w, h := rd.DefaultDims()
	for _, c := range inputChannels {
		if !c.Optional {
			continue
		}
		t := rd.Texture(c.Name)
		d["is_valid_"+c.Name] = t != nil && t.Width == w && t.Height == h
	}
	return d
}

// clearOutputs zeroes every declared output.
func clearOutputs(rd *RenderData) {
	for _, c := range outputChannels {
		rd.output(c.Name).Clear()
	}
}
