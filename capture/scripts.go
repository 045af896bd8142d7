package capture

// boundingRectsScript resolves one selector in the page and returns the viewport-relative rects of
// every match, or null if nothing matched. arguments[0] is the selector kind, arguments[1] the value.
const boundingRectsScript = `
var kind = arguments[0], sel = arguments[1], els = [];
function quote(v) { return '"' + String(v).replace(/\\/g, '\\\\').replace(/"/g, '\\"') + '"'; }
switch (kind) {
case 'css':
	els = Array.prototype.slice.call(document.querySelectorAll(sel));
	break;
case 'class':
	els = Array.prototype.slice.call(document.getElementsByClassName(sel));
	break;
case 'id':
	var byId = document.getElementById(sel);
	if (byId) { els = [byId]; }
	break;
case 'name':
	els = Array.prototype.slice.call(document.getElementsByName(sel));
	break;
case 'xpath':
	var snap = document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (var i = 0; i < snap.snapshotLength; i++) { els.push(snap.snapshotItem(i)); }
	break;
case 'accessibilityId':
	var q = quote(sel);
	els = Array.prototype.slice.call(document.querySelectorAll(
		'[aria-label=' + q + '],[title=' + q + '],[content-desc=' + q + ']'));
	break;
}
if (els.length === 0) { return null; }
return els.map(function (el) {
	var r = el.getBoundingClientRect();
	return {x: r.left, y: r.top, width: r.width, height: r.height};
});`

// scrollByScript smoothly scrolls the window down by arguments[0] CSS pixels.
const scrollByScript = `window.scrollBy({top: arguments[0], left: 0, behavior: 'smooth'});`

const scrollPositionScript = "return [window.scrollX, window.scrollY];"

// androidScrollCommand is the UiAutomator2 extension for a native scroll gesture.
const androidScrollCommand = "mobile: scrollGesture"
