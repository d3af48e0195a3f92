package runner

// domShim is the browser emulation prelude injected ahead of scripts that
// touch DOM APIs. Elements are inert stubs that absorb reads and writes;
// dialog and storage calls are echoed to the console so the learner can see
// them in the captured output.
const domShim = `// --- browser environment emulation ---
const __element = (extra) => Object.assign({
    innerHTML: '',
    textContent: '',
    value: '',
    style: {},
    className: '',
    children: [],
    appendChild() {},
    removeChild() {},
    setAttribute() {},
    getAttribute() { return null; },
    addEventListener() {},
    removeEventListener() {},
}, extra);

const document = {
    getElementById: (id) => __element({ id }),
    querySelector: () => __element({}),
    querySelectorAll: () => [],
    createElement: (tag) => __element({ tagName: String(tag).toUpperCase() }),
    body: __element({}),
    addEventListener() {},
};

const localStorage = {
    __store: {},
    getItem(key) { return this.__store[key] ?? null; },
    setItem(key, value) { this.__store[key] = String(value); console.log('LocalStorage SET: ' + key + ' = ' + value); },
    removeItem(key) { delete this.__store[key]; console.log('LocalStorage REMOVE: ' + key); },
    clear() { this.__store = {}; },
};
const sessionStorage = Object.assign({}, localStorage, { __store: {} });

const alert = (msg) => console.log('ALERT:', msg);
const prompt = (msg, def = '') => { console.log('PROMPT:', msg); return def || 'Hello, JavaScript User!'; };
const confirm = (msg) => { console.log('CONFIRM:', msg); return true; };

const window = {
    document, localStorage, sessionStorage, alert, prompt, confirm,
    location: { href: 'http://localhost:3000' },
    addEventListener() {},
};
// --- end emulation ---`
